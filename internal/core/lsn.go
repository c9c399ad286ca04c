package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LSN is a 64-bit write-ahead-log position. It is kept as the raw integer
// internally and rendered in the canonical "HHHH/HHHHHHHH" form at the
// edges (manifests, receipts, logs), matching how the cluster itself prints
// log positions.
type LSN uint64

// ZeroLSN is the smallest possible log position.
const ZeroLSN LSN = 0

// ParseLSN parses the canonical "HHHH/HHHHHHHH" representation.
func ParseLSN(s string) (LSN, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, errors.Errorf("malformed LSN %q: expected HHHH/HHHHHHHH", s)
	}

	hi, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed LSN %q: high half", s)
	}
	lo, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed LSN %q: low half", s)
	}

	return LSN(hi<<32 | lo), nil
}

// String renders the LSN in its canonical two-hex-half form: the low half
// zero-padded to 8 digits, the high half unpadded, as the cluster prints
// it. The rendered strings do not sort in LSN order once the high half
// reaches two digits; LSN values are compared numerically.
func (l LSN) String() string {
	return fmt.Sprintf("%X/%08X", uint32(l>>32), uint32(l))
}

// MarshalJSON renders the LSN as its canonical string form.
func (l LSN) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(l.String())), nil
}

// UnmarshalJSON parses the canonical string form.
func (l *LSN) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrap(err, "unquote LSN")
	}
	v, err := ParseLSN(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

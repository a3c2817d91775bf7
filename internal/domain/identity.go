package domain

// ─── National Identity Validation ───────────────────────────────────────────
//
// Identity codes are 10 ASCII digits. The first two digits are a region
// code in [1, 24]. The 10th digit is a check digit over the first nine:
// each digit at an even 0-indexed position is doubled (subtracting 9 when
// the product reaches 10), odd positions pass through, and the check digit
// is the distance from the sum to the next multiple of 10.

const (
	identityLength = 10
	regionMin      = 1
	regionMax      = 24
)

// ValidateIdentity checks a patron national identity code.
// Returns nil or one of ErrInvalidFormat, ErrInvalidRegion,
// ErrInvalidChecksum (wrapped in a ValidationError).
func ValidateIdentity(code string) error {
	if len(code) != identityLength {
		return &ValidationError{Field: "identity", Err: ErrInvalidFormat}
	}
	digits := make([]int, identityLength)
	for i := 0; i < identityLength; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return &ValidationError{Field: "identity", Err: ErrInvalidFormat}
		}
		digits[i] = int(c - '0')
	}

	region := digits[0]*10 + digits[1]
	if region < regionMin || region > regionMax {
		return &ValidationError{Field: "identity", Err: ErrInvalidRegion}
	}

	sum := 0
	for i := 0; i < identityLength-1; i++ {
		p := digits[i]
		if i%2 == 0 {
			p *= 2
			if p >= 10 {
				p -= 9
			}
		}
		sum += p
	}
	check := 0
	if sum%10 != 0 {
		check = 10 - sum%10
	}
	if check != digits[identityLength-1] {
		return &ValidationError{Field: "identity", Err: ErrInvalidChecksum}
	}
	return nil
}

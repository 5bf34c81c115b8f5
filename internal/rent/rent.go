// Package rent computes the reserve floor a campaign account must keep.
package rent

const (
	// AccountStorageOverhead is charged on top of every account's data length.
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0

	// MaxTitleLen bounds the title because it doubles as an address seed.
	MaxTitleLen = 32
	// MaxAccountSpace is the largest allocation a campaign account may request.
	MaxAccountSpace = 10240

	discriminatorLen = 8
	pubkeyLen        = 32
	stringPrefixLen  = 4
	// goal, raised, backers, created_at, ends_at
	fixedWords = 5 * 8
	// active, canceled, funds_withdrawn
	flagBytes = 3
)

// Rent holds the parameters of the reserve-floor calculation.
type Rent struct {
	LamportsPerByteYear int64
	ExemptionThreshold  float64
}

// Default returns the standard rent parameters.
func Default() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
	}
}

// MinimumBalance is the balance an account of size bytes must retain.
func (r Rent) MinimumBalance(size int) int64 {
	bytes := int64(AccountStorageOverhead + size)
	return int64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// CampaignSpace is the allocation size of a campaign account with the given
// title and description. Lengths are in bytes.
func CampaignSpace(title, description string) int {
	return discriminatorLen + pubkeyLen +
		stringPrefixLen + len(title) +
		stringPrefixLen + len(description) +
		fixedWords + flagBytes
}

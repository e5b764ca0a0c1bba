package currency

import (
	"strings"

	"github.com/wakala/feerecon/internal/domain"
)

// AlternateFeeToken is the exchange token whose fee is reported in the
// dedicated gt_fee payload field.
const AlternateFeeToken = "GT"

// Classify returns the role of asset within the base/quote pair. Comparison is
// exact; an asset that matches neither side is auxiliary. Only an empty asset
// yields AssetUndefined.
func Classify(asset, base, quote string) domain.AssetRole {
	switch asset {
	case "":
		return domain.AssetUndefined
	case base:
		return domain.AssetBase
	case quote:
		return domain.AssetQuote
	default:
		return domain.AssetAux
	}
}

// IsAlternateFeeToken reports whether asset names the alternate fee token,
// ignoring case.
func IsAlternateFeeToken(asset string) bool {
	return strings.EqualFold(asset, AlternateFeeToken)
}

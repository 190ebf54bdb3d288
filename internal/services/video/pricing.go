package video

// DefaultPricePerSecond applies to models missing from the price table.
const DefaultPricePerSecond = 0.15

// Per-second USD prices. Veo 3.x always renders audio; Seedance is priced
// from its token formula at 720p/24fps.
var pricePerSecond = map[string]float64{
	"veo-3.1-generate-preview":      0.40,
	"veo-3.1-fast-generate-preview": 0.15,
	"veo-3.0-generate-001":          0.40,
	"veo-3.0-fast-generate-001":     0.15,
	"veo-2.0-generate-001":          0.35,
	"seedance-1-5-pro-251215":       0.026,
}

var pricePerSecondNoAudio = map[string]float64{
	"seedance-1-5-pro-251215": 0.013,
}

// PricePerSecond returns the USD rate for model. withAudio only changes the
// rate for models that price silent output separately.
func PricePerSecond(model string, withAudio bool) float64 {
	if !withAudio {
		if rate, ok := pricePerSecondNoAudio[model]; ok {
			return rate
		}
	}
	if rate, ok := pricePerSecond[model]; ok {
		return rate
	}
	return DefaultPricePerSecond
}

// KnownModel reports whether model has an explicit price.
func KnownModel(model string) bool {
	_, ok := pricePerSecond[model]
	return ok
}

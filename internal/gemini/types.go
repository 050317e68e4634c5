// ABOUTME: Decoding and safety configuration types for Gemini generation requests
// ABOUTME: Mirrors the generationConfig and safetySettings wire objects

package gemini

// DecodingConfig holds the sampling parameters submitted with every
// generation request. All four fields must be supplied; the client
// rejects configs it cannot distinguish from unset rather than filling
// in defaults on the caller's behalf.
type DecodingConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultDecodingConfig is the decoding configuration the hosted bot runs
// with. Callers opt into it explicitly.
var DefaultDecodingConfig = DecodingConfig{
	Temperature:     1.0,
	TopK:            64,
	TopP:            0.95,
	MaxOutputTokens: 8192,
}

// HarmCategory identifies a content-safety harm category.
type HarmCategory string

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

// allHarmCategories is the full set a request must cover.
var allHarmCategories = []HarmCategory{
	HarmCategoryHarassment,
	HarmCategoryHateSpeech,
	HarmCategorySexuallyExplicit,
	HarmCategoryDangerousContent,
}

// HarmBlockThreshold selects how aggressively a category is filtered.
type HarmBlockThreshold string

const (
	BlockNone           HarmBlockThreshold = "BLOCK_NONE"
	BlockOnlyHigh       HarmBlockThreshold = "BLOCK_ONLY_HIGH"
	BlockMediumAndAbove HarmBlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockLowAndAbove    HarmBlockThreshold = "BLOCK_LOW_AND_ABOVE"
)

// SafetySetting maps one harm category to a block threshold.
type SafetySetting struct {
	Category  HarmCategory       `json:"category"`
	Threshold HarmBlockThreshold `json:"threshold"`
}

// DefaultSafetySettings returns the production safety configuration:
// every harm category blocked at medium and above.
func DefaultSafetySettings() []SafetySetting {
	settings := make([]SafetySetting, 0, len(allHarmCategories))
	for _, category := range allHarmCategories {
		settings = append(settings, SafetySetting{
			Category:  category,
			Threshold: BlockMediumAndAbove,
		})
	}
	return settings
}

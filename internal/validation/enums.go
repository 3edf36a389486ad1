package validation

// Accepted values for enumerated request fields.
var (
	ValidPolicies       = []string{"fixed-baseline", "randomized"}
	ValidModes          = []string{"preserve", "plain"}
	ValidPreviewFormats = []string{"html", "markdown"}
	ValidMeshSizes      = []string{"80", "100", "200"}
	ValidMixerSizes     = []string{"Small", "Medium", "Large"}
)

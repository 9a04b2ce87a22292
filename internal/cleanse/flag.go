package cleanse

// NormalizeVacantFlag rewrites the two-valued sold-as-vacant flag into its
// human-readable label: "Y" -> "Yes", "N" -> "No". Any other value is
// returned unchanged, which makes the function total and idempotent
// (reapplying "Yes" stays "Yes").
func NormalizeVacantFlag(v string) string {
	switch v {
	case "Y":
		return "Yes"
	case "N":
		return "No"
	default:
		return v
	}
}

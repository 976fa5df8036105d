package registry

import "strings"

// NormalizeForm canonicalizes sub-model form names and their common aliases.
// Unknown names are returned lower-cased with separators folded to '_'.
func NormalizeForm(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.Trim(normalized, "_")
	if normalized == "" {
		return ""
	}
	if canonical, ok := canonicalForm(strings.ReplaceAll(normalized, "_", "")); ok {
		return canonical
	}
	return normalized
}

func canonicalForm(compact string) (string, bool) {
	switch compact {
	case "logistic":
		return "logistic", true
	case "doublelogistic", "dbllogistic", "dome":
		return "double_logistic", true
	case "ewaa", "empirical", "empiricalweightatage", "weightatage":
		return "ewaa", true
	case "vonbertalanffy", "vb", "vbgf":
		return "von_bertalanffy", true
	case "bevertonholt", "bh":
		return "beverton_holt", true
	case "ricker":
		return "ricker", true
	case "logdevs", "devs", "logrecdevs":
		return "log_devs", true
	case "logr":
		return "log_r", true
	default:
		return "", false
	}
}

// KnownForm reports whether name normalizes to a supported form.
func KnownForm(name string) bool {
	_, ok := canonicalForm(strings.ReplaceAll(NormalizeForm(name), "_", ""))
	return ok
}

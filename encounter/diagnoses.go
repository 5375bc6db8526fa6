package encounter

import "strings"

// DiagnosisDelimiter separates diagnosis names in the stored diagnosis column.
const DiagnosisDelimiter = "____"

// JoinDiagnoses renders a diagnosis list for storage.
func JoinDiagnoses(names []string) string {
	return strings.Join(names, DiagnosisDelimiter)
}

// SplitDiagnoses reverses JoinDiagnoses. Empty text is an empty list, not [""].
func SplitDiagnoses(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, DiagnosisDelimiter)
}

package logging

import "strings"

// FormatSubject builds the "component [dataset]" prefix used in console output.
func FormatSubject(component, dataset string) string {
	component = strings.TrimSpace(component)
	dataset = strings.TrimSpace(dataset)
	switch {
	case component != "" && dataset != "":
		return component + " [" + dataset + "]"
	case dataset != "":
		return "[" + dataset + "]"
	default:
		return component
	}
}

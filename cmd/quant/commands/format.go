package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const labelWidth = 14

// PrintHeader prints a boxed command header with optional subtitle lines
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	PrintSeparator()
}

// PrintSection prints a section title
func PrintSection(icon, title string) {
	fmt.Println()
	fmt.Printf("%s %s\n", icon, title)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// PrintKV prints an aligned label/value row
func PrintKV(label string, value interface{}) {
	fmt.Printf("  %-*s : %v\n", labelWidth, label, value)
}

// PrintMap prints a float map sorted by key with a formatter
func PrintMap(m map[string]float64, f func(float64) string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		PrintKV(k, f(m[k]))
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintBar renders v in [0,1] as a 20-cell bar
func PrintBar(label string, v float64) {
	n := int(v*20 + 0.5)
	n = min(max(n, 0), 20)
	fmt.Printf("  %-*s : %s%s %.2f\n", labelWidth, label, strings.Repeat("█", n), strings.Repeat("░", 20-n), v)
}

// printJSON writes v indented to stdout (--json)
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

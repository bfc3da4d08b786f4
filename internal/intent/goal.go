package intent

import "strings"

// longest first so "设定一个目标" is not cut at "定一个目标"
var goalMarkers = []string{"设定一个目标", "定一个目标", "我的目标是", "设定目标", "设个目标", "定个目标", "目标是", "目标：", "目标:"}

// Goal reports whether text states a goal and returns its description.
// Questions about goals ("我的目标是多少？") are not goals.
func Goal(text string) (string, bool) {
	if containsAny(text, "多少", "什么", "吗", "？", "?") {
		return "", false
	}
	for _, m := range goalMarkers {
		if _, after, ok := strings.Cut(text, m); ok {
			return strings.TrimSpace(strings.Trim(after, "：:，, 。！!")), true
		}
	}
	return "", false
}

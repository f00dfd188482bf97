package model

// Colors are CSS utility classes understood by the calendar page.
const (
	ColorDefault = "bg-blue-500"
	ColorBusy    = "bg-gray-400"
)

var priorityColors = map[int]string{
	1: "bg-red-500",
	2: "bg-orange-500",
	3: "bg-yellow-500",
	4: "bg-green-500",
	5: "bg-blue-500",
}

// PriorityColor maps a priority to its color. Unknown priorities use
// ColorDefault.
func PriorityColor(p int) string {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return ColorDefault
}

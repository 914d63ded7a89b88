package models

// Status is one workflow stage of the board. Ord defines the
// left-to-right column position; ties keep fetch order.
type Status struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Value string `json:"value"`
	Ord   int    `json:"order"`
}

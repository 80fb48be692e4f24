package domain

// SplitSuggestion is the human-facing reading of an "incompatible families"
// rejection: what went wrong and how the items could be regrouped.
type SplitSuggestion struct {
	Message   string       `json:"message"`
	Conflicts []string     `json:"conflitos"`
	Groups    []SplitGroup `json:"grupos"`
}

// SplitGroup is one compatible subset of the original order.
type SplitGroup struct {
	Index    int         `json:"index"`
	Title    string      `json:"title"`
	Families []string    `json:"familias"`
	Items    []SplitItem `json:"itens"`
}

// SplitItem is an order line placed in a group.
type SplitItem struct {
	Product  string  `json:"produto"`
	Quantity float64 `json:"quantidade"`
}

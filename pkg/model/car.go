package model

type Car struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type CarInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

package domain

// Category is a normalised catalog category with the number of products in it.
type Category struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

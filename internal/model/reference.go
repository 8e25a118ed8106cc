package model

// Category is a bookkeeping category. Categories may nest one level deep via
// ParentID; a subcategory name is often a superstring of its parent's name.
type Category struct {
	ID       string
	Name     string
	ParentID string
}

// Account is a money account (cash drawer, bank account, card).
type Account struct {
	ID   string
	Name string
}

// Client is a contact the business sells to or buys from.
type Client struct {
	ID       string
	Name     string
	Phone    string
	Category string
}

// ReferenceSet bundles the read-only reference data the extractor resolves
// names against. The engine never mutates any of it.
type ReferenceSet struct {
	Categories []Category
	Accounts   []Account
	Clients    []Client
}

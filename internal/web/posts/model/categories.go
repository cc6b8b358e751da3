package model

// Category a language scoped post tag
type Category struct {
	ID        string `firestore:"-" bson:"_id" json:"id"`
	Label     string `firestore:"label" bson:"label" json:"label"`
	Slug      string `firestore:"slug" bson:"slug" json:"slug"`
	Language  string `firestore:"lang" bson:"lang" json:"lang"`
	CreatedAt int64  `firestore:"createdAt" bson:"createdAt" json:"created_at"`
}

// CategoryInput fields of a category to create
type CategoryInput struct {
	Label    string
	Slug     string
	Language string
}

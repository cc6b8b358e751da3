package redis

const (
	keyPrefix = "post-editor/"

	// KeyPrefixImageURL prefixes cached displayable URLs of stored images
	KeyPrefixImageURL = keyPrefix + "image-url/"
)

package mongodb

const (
	// UsersCollection stores user records, including linking state and
	// the Facebook connection sub-document.
	UsersCollection = "users"
)

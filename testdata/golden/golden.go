package golden

// Request is built in place.
//
//builder:standalone
type Request struct {
	Method  string
	Target  string   `builder:"default = '\"/\"'"`
	Retries int      `builder:"default = '3'"`
	Headers []string `builder:"setter(each = 'header'), default"`
}

// Query is built by value.
//
//builder:standalone, pattern = "owned"
type Query struct {
	Table string
	Terms []string `builder:"setter(each = 'term'), default"`
}

// Route is built by copying on every set.
//
//builder:standalone, pattern = "immutable"
type Route struct {
	Name string
	Hops []string `builder:"setter(each = 'hop'), default"`
}

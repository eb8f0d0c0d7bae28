package widgets

import (
	"net/url"
	"time"
)

// Widget is assembled by WidgetBuilder.
//
//builder:pattern = "owned"
//builder:setter(into), derive(String)
type Widget struct {
	// Name labels the widget.
	Name string
	// Timeout bounds each call.
	Timeout  time.Duration `builder:"default = 'time.Second'"`
	Tags     []string      `builder:"setter(each = 'tag')"`
	Endpoint *url.URL      //builder:setter(strip_option), default
	retries  int           `json:"-" builder:"setter(skip), default = '3'"`
}

// Gadget has no directives and is ignored.
type Gadget struct {
	ID int
}

// Pair is generic.
//
//builder:
type Pair[K comparable, V any] struct {
	Key   K
	Value V `builder:"default"`
}

// Legacy is kept for old callers.
//
// Deprecated: use Widget.
//
//builder:
type Legacy struct {
	ID int
}

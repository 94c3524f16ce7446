package internal

import (
	"sjsage522/storyworker/services/cache"
	"sjsage522/storyworker/services/publisher"
	"sjsage522/storyworker/services/store"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Store     store.Store
	Publisher publisher.Publisher
	Marks     *cache.ExtractionMarks
}

// Close releases every dependency that holds a connection
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		d.Publisher.Close()
	}
	if d.Store != nil {
		d.Store.Close()
	}
}

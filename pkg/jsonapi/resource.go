package jsonapi

import (
	"encoding/json"
	"fmt"
)

// ResourceBuilder provides a fluent API for building Resource objects.
type ResourceBuilder struct {
	resource Resource
}

// NewResource creates a new ResourceBuilder with the given type and ID.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attrs adds multiple attributes to the resource.
func (b *ResourceBuilder) Attrs(attrs map[string]any) *ResourceBuilder {
	for k, v := range attrs {
		// id and type are top-level fields
		if k == "id" || k == "type" {
			continue
		}
		b.resource.Attributes[k] = v
	}
	return b
}

// Link sets the self link.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &Links{Self: self}
	return b
}

// Build returns the constructed Resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}

// ResourceFromValue builds a resource whose attributes are v's JSON fields.
// self, when set, becomes the resource's self link.
func ResourceFromValue(resourceType, id, self string, v any) (Resource, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Resource{}, fmt.Errorf("encode %s attributes: %w", resourceType, err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return Resource{}, fmt.Errorf("%s attributes must be an object: %w", resourceType, err)
	}
	b := NewResource(resourceType, id).Attrs(attrs)
	if self != "" {
		b.Link(self)
	}
	return b.Build(), nil
}

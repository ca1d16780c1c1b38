// Package locationpb holds the google.cloud.location messages.
package locationpb

import (
	"github.com/anirudhraja/wirecodec"
	"github.com/anirudhraja/wirecodec/types/wellknown"
)

// Location is a resource that represents a Google Cloud location.
type Location struct {
	// Resource name, for example "projects/example-project/locations/us-east1".
	Name string `wirecodec:"name,1" json:"name,omitempty"`
	// Cross-service attributes, for example {"cloud.googleapis.com/region": "us-east1"}.
	Labels map[string]string `wirecodec:"labels,2" json:"labels,omitempty"`
	// Service-specific metadata, for example the available capacity.
	Metadata *wellknown.Any `wirecodec:"metadata,3" json:"metadata,omitempty"`
	// The canonical id, for example "us-east1".
	LocationID string `wirecodec:"location_id,4" json:"locationId,omitempty"`
	// The friendly name, for example "Tokyo".
	DisplayName string `wirecodec:"display_name,5" json:"displayName,omitempty"`
}

func (*Location) ProtoMessageName() string { return "google.cloud.location.Location" }

func (l *Location) GetName() string {
	if l == nil {
		return ""
	}
	return l.Name
}

func (l *Location) GetLabels() map[string]string {
	if l == nil {
		return nil
	}
	return l.Labels
}

func (l *Location) GetMetadata() *wellknown.Any {
	if l == nil {
		return nil
	}
	return l.Metadata
}

func (l *Location) GetLocationID() string {
	if l == nil {
		return ""
	}
	return l.LocationID
}

func (l *Location) GetDisplayName() string {
	if l == nil {
		return ""
	}
	return l.DisplayName
}

// HasMetadata reports whether metadata is set, even to an empty message.
func (l *Location) HasMetadata() bool {
	return l != nil && l.Metadata != nil
}

func (l *Location) ClearMetadata() { l.Metadata = nil }

// SetLabel sets one label, allocating the map on first use.
func (l *Location) SetLabel(key, value string) {
	if l.Labels == nil {
		l.Labels = make(map[string]string)
	}
	l.Labels[key] = value
}

func (l *Location) ClearLabels() { l.Labels = nil }

func (l *Location) Marshal() ([]byte, error) { return wirecodec.Marshal(l) }

func (l *Location) Unmarshal(data []byte) error { return wirecodec.Unmarshal(data, l) }

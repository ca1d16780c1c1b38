package locationpb

import (
	"github.com/anirudhraja/wirecodec"
)

// ListLocationsRequest is the request message for Locations.ListLocations.
type ListLocationsRequest struct {
	Name      string `wirecodec:"name,1" json:"name,omitempty"`
	Filter    string `wirecodec:"filter,2" json:"filter,omitempty"`
	PageSize  int32  `wirecodec:"page_size,3" json:"pageSize,omitempty"`
	PageToken string `wirecodec:"page_token,4" json:"pageToken,omitempty"`
}

func (*ListLocationsRequest) ProtoMessageName() string {
	return "google.cloud.location.ListLocationsRequest"
}

func (r *ListLocationsRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *ListLocationsRequest) GetFilter() string {
	if r == nil {
		return ""
	}
	return r.Filter
}

func (r *ListLocationsRequest) GetPageSize() int32 {
	if r == nil {
		return 0
	}
	return r.PageSize
}

func (r *ListLocationsRequest) GetPageToken() string {
	if r == nil {
		return ""
	}
	return r.PageToken
}

func (r *ListLocationsRequest) Marshal() ([]byte, error) { return wirecodec.Marshal(r) }

func (r *ListLocationsRequest) Unmarshal(data []byte) error { return wirecodec.Unmarshal(data, r) }

// ListLocationsResponse is the response message for Locations.ListLocations.
type ListLocationsResponse struct {
	Locations     []*Location `wirecodec:"locations,1" json:"locations,omitempty"`
	NextPageToken string      `wirecodec:"next_page_token,2" json:"nextPageToken,omitempty"`
}

func (*ListLocationsResponse) ProtoMessageName() string {
	return "google.cloud.location.ListLocationsResponse"
}

func (r *ListLocationsResponse) GetLocations() []*Location {
	if r == nil {
		return nil
	}
	return r.Locations
}

func (r *ListLocationsResponse) GetNextPageToken() string {
	if r == nil {
		return ""
	}
	return r.NextPageToken
}

// AddLocations appends to the location list and returns the last one added.
func (r *ListLocationsResponse) AddLocations(locs ...*Location) *Location {
	r.Locations = append(r.Locations, locs...)
	if len(locs) == 0 {
		return nil
	}
	return locs[len(locs)-1]
}

func (r *ListLocationsResponse) ClearLocations() { r.Locations = nil }

func (r *ListLocationsResponse) Marshal() ([]byte, error) { return wirecodec.Marshal(r) }

func (r *ListLocationsResponse) Unmarshal(data []byte) error { return wirecodec.Unmarshal(data, r) }

// GetLocationRequest is the request message for Locations.GetLocation.
type GetLocationRequest struct {
	Name string `wirecodec:"name,1" json:"name,omitempty"`
}

func (*GetLocationRequest) ProtoMessageName() string {
	return "google.cloud.location.GetLocationRequest"
}

func (r *GetLocationRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *GetLocationRequest) Marshal() ([]byte, error) { return wirecodec.Marshal(r) }

func (r *GetLocationRequest) Unmarshal(data []byte) error { return wirecodec.Unmarshal(data, r) }

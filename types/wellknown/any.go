// Package wellknown holds the google.protobuf types the location messages
// embed.
package wellknown

import (
	"strings"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/anirudhraja/wirecodec"
)

// TypeURLPrefix is the default prefix used by Pack.
const TypeURLPrefix = "type.googleapis.com/"

// Any carries an arbitrary serialized message together with a URL naming its
// type.
type Any struct {
	TypeURL string `wirecodec:"type_url,1" json:"typeUrl,omitempty"`
	Value   []byte `wirecodec:"value,2" json:"value,omitempty"`
}

func (*Any) ProtoMessageName() string { return "google.protobuf.Any" }

func (a *Any) GetTypeURL() string {
	if a == nil {
		return ""
	}
	return a.TypeURL
}

func (a *Any) GetValue() []byte {
	if a == nil {
		return nil
	}
	return a.Value
}

// MessageName returns the fully qualified name after the last '/' of the
// type URL.
func (a *Any) MessageName() string {
	url := a.GetTypeURL()
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}

func (a *Any) Marshal() ([]byte, error) { return wirecodec.Marshal(a) }

func (a *Any) Unmarshal(data []byte) error { return wirecodec.Unmarshal(data, a) }

// Pack wraps msg, which must be a tagged struct pointer implementing
// wirecodec.MessageNamer.
func Pack(msg wirecodec.MessageNamer) (*Any, error) {
	value, err := wirecodec.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", msg.ProtoMessageName())
	}
	return &Any{TypeURL: TypeURLPrefix + msg.ProtoMessageName(), Value: value}, nil
}

// UnpackTo decodes the payload into dst after checking the type name.
func (a *Any) UnpackTo(dst wirecodec.MessageNamer) error {
	if got, want := a.MessageName(), dst.ProtoMessageName(); got != want {
		return errors.Newf("any holds %q, not %q", got, want)
	}
	return wirecodec.Unmarshal(a.GetValue(), dst)
}

// ToProto converts to the google.golang.org/protobuf representation.
func (a *Any) ToProto() *anypb.Any {
	if a == nil {
		return nil
	}
	return &anypb.Any{TypeUrl: a.TypeURL, Value: append([]byte(nil), a.Value...)}
}

// FromProto converts from the google.golang.org/protobuf representation.
func FromProto(p *anypb.Any) *Any {
	if p == nil {
		return nil
	}
	return &Any{TypeURL: p.GetTypeUrl(), Value: append([]byte(nil), p.GetValue()...)}
}

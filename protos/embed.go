// Package protos bundles the .proto definitions of the message types in
// types/.
package protos

import "embed"

// FS holds google/cloud/location/locations.proto and google/type/date.proto.
//
//go:embed google
var FS embed.FS

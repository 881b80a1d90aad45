// Package domain contains the core types shared across the campaign engine.
//
// Types here are plain data with minimal behavior. Business rules live in the
// service packages; persistence lives in repository implementations. Nothing
// in this package may import from other internal packages.
package domain

// Package store keeps serialized design spaces and cases in an embedded
// BadgerDB database.
//
// Badger implements designspace.Archive, so a space can be written with
// DesignSpace.Save and read back with designspace.Load. Keys are plain
// strings; values are the yaml envelopes produced by MarshalBinary.
//
// Errors:
//
//   - ErrNotFound  no value under the key (matches designspace.ErrNotFound)
//   - ErrEmptyKey  the key is empty
//   - ErrConfig    neither Path nor InMemory was set
package store

// Package schema loads and compiles appliance profiles for ebus2mqtt.
//
// A profile is a JSON document describing one appliance on the ebus: how to
// recognise its telegrams, which payload bytes carry which values, how to
// name the MQTT topics those values are published on, and how to probe
// whether the appliance is present at all.
//
// # Loading
//
// The on-disk document is loosely typed (hex strings, optional keys, mixed
// encodings). Load decodes it once into a strongly typed, immutable Profile
// and rejects malformed documents up front, so the decode path never has to
// re-validate per telegram:
//
//	profile, err := schema.Load("profiles/boiler.json")
//	if err != nil {
//	    return err // errors.Is(err, schema.ErrInvalid)
//	}
//
// # Patterns
//
// Matching criteria are compiled into three pattern types:
//
//   - BytePattern: a single address byte, or "*" for any
//   - command identifier: exact 16-bit primary+secondary command pair
//   - DataPattern: a payload byte sequence, exact or prefix-anchored ("^...")
//
// Hex digits in the document are case-insensitive. A literal pattern whose
// length differs from the actual bytes never matches; there is no padding.
//
// # Immutability
//
// A Profile is never mutated after Load returns. Reloading a profile means
// building a new one and swapping the reference; concurrent decoding against
// the old Profile stays valid.
package schema

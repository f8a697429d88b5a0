// Package coerce converts UPnP wire text into Go values using the data type a
// service declares for the related state variable.
//
//	v, ok := coerce.Coerce("ui4", "1") // int64(1), true
//	_, ok = coerce.Coerce("string", "") // nil, false
//
// A false second result means "no value": the caller omits the argument.
package coerce

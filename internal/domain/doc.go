// Package domain holds the booking entities and their rules: role variants
// over a shared identity record, the specialty enumeration, doctor
// availability and its evaluator, the appointment status machine, medical
// records and chat messages.
//
// Mutating functions never buffer events on the entity. They return the
// events they raise so the caller can stage both in one unit of work.
package domain

// Package domain defines the core domain models for SkillGate.
//
// Domain models are pure value objects without IO dependencies. This
// package contains:
//
//   - User and APIToken: the credential records behind bearer tokens
//   - TokenFormat: the "ask_live_<hex>" wire format and digest
//   - Errors: the wire-visible error codes and their HTTP statuses
package domain

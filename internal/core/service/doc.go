// Package service provides domain services for SkillGate.
//
// Domain services contain the business logic that sits between the HTTP
// layer and storage. They define the storage interfaces they depend on so
// that tests and alternative stores can be substituted.
//
// This package contains:
//
//   - Authenticator: bearer token validation with a fixed failure precedence
//   - TokenService: token issuance, listing and revocation
//   - UserService: user lifecycle for token owners
//
// Services are stateless apart from their collaborators and are safe for
// concurrent use.
package service

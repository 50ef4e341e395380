// Package auth implements user registration, email based account
// activation and credential authentication for a web backend.
//
// Registration:
//   - RegisterUserHandler creates the identity disabled, with the default
//     USER role, then issues a six digit activation code that expires 15
//     minutes after issuance. The code is handed to a Dispatcher so email
//     delivery stays off the request path.
//
// Activation:
//   - ActivateAccountHandler resolves the presented code. A live code
//     enables the account and consumes the token inside one transaction;
//     an expired code is replaced, re-sent and reported as expired; a
//     consumed code fails.
//
// Authentication:
//   - Auther verifies credentials through an IdentityProvider and mints a
//     signed JWT whose subject is the user's email. Unknown email, wrong
//     password and locked accounts all produce the same error so callers
//     cannot enumerate accounts.
//
// Persistence goes through RepositoryManager; the HTTP layer, email
// transport and request middleware are external collaborators wired in by
// the host application.
package auth

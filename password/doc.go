// Package password hashes member passwords with argon2id and verifies stored
// hashes.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Verifier] also accepts bcrypt hashes ($2a$, $2b$, $2y$) and reports them as
// needing an upgrade.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other boardAuth package.
//   - Log plaintext passwords.
package password

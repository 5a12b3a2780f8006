// Package secure provides memory-safe storage for long-lived credentials
// such as store and static-source tokens. Values are kept in encrypted
// memguard enclaves so plaintext only exists while a caller is actively
// using it.
package secure

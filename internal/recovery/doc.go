// Package recovery reconstructs a repeating-key XOR key and its plaintext
// from ciphertext alone, given the key length.
//
// The engine relies on the plaintext having been normalized to lowercase
// ASCII letters and spaces. It analyses each key column independently:
//
//   - A column is mixed when any of its ciphertext bytes lies strictly
//     between 0 and 32. The key byte is the first byte >= 64 in row order,
//     XORed with the space code.
//   - Otherwise the column is uniform. If any two adjacent rows differ the
//     key byte is taken to be the space code; if every row is identical the
//     key byte is unknown.
//
// Unknown key bytes are reported explicitly through KeyByte.Known and their
// plaintext positions are filled with a placeholder. Recovery is
// best-effort: the rules assume printable, letter-adjacent key bytes.
package recovery

// Package cipher exposes the XOR toolkit as named, chainable operations.
//
// # Operations
//
// Every transformation is registered under a name in a global registry:
//
//	normalize         text -> fixed-width lines          (width | key)
//	xor_encrypt       lines -> ciphertext               (key)
//	xor_decrypt       ciphertext -> lines               (key)
//	xor_recover       ciphertext -> recovered text      (key_length, placeholder, workers)
//	xor_recover_key   ciphertext -> recovered key       (key_length, placeholder, workers)
//	hex_encode / hex_decode
//	base64_encode / base64_decode
//
// A single operation runs through Run, which also records the outcome in
// the operations metric:
//
//	out, err := cipher.Run(ctx, "xor_encrypt", []byte("test\nmean\n"), map[string]any{"key": "abcd"})
//
// # Pipelines
//
// Operations chain into a Pipeline. A reversible pipeline can be inverted;
// each step keeps its parameters so an encrypt step reverses into a decrypt
// step with the same key:
//
//	p := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "normalize", Parameters: map[string]any{"width": 4}},
//	        {Name: "xor_encrypt", Parameters: map[string]any{"key": "abcd"}},
//	        {Name: "hex_encode"},
//	    },
//	}
//
// # Recipes
//
// RecipeManager stores named pipelines as JSON files and converts them to
// and from YAML for sharing.
//
// # Transport detection
//
// Ciphertext is binary. When it arrives as text, SmartDetector reports
// whether it looks like hex, Base64 or raw bytes, and DecodeCiphertext
// turns it back into raw bytes.
package cipher

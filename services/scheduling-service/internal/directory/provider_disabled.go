//go:build !protogen

package directory

// NewProvider is a stub until the directory gRPC stubs are generated.
// Build with -tags protogen after running protoc to enable live lookups.
func NewProvider(_ string) (Provider, error) {
	return nil, nil
}

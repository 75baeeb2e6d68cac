// Package capability holds the directory of operations the reasoning
// component may invoke.
//
// A Descriptor pairs catalogue metadata (name, description, parameters)
// with the container.Operation it runs and a typed Handler. Descriptors are
// registered once at startup into an explicitly constructed Registry; after
// that the registry is read-only and safe for concurrent lookups.
//
//	reg := capability.NewRegistry()
//	err := reg.Init(func(r *capability.Registry) error {
//	    for _, d := range capability.Builtins(orchestrator) {
//	        if err := r.Register(d); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	})
package capability

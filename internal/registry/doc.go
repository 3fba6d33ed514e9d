// Package registry resolves a configured strategy name to a Planner.
//
// Built-in strategies are registered by New. External strategies are added
// through Register before the first Resolve, typically at process start:
//
//	reg := registry.New(registry.WithCache(registry.NewCache()))
//	if err := reg.Register("acme-merge", acme.NewMergePlanner); err != nil {
//		return err
//	}
//	p, err := reg.Resolve(cfg)
//
// The optional single-instance Cache is explicit process state: the caller
// constructs it, passes it in, and may inspect or clear it.
package registry

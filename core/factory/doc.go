// Package factory instantiates pluggable modules (metrics sinks, history
// stores) from configuration. A module is described by a type string and a
// map of raw settings that the registered factory decodes into its own
// struct.
//
//	reg := factory.NewRegistry[history.Store]()
//	_ = reg.Register("jsonl", func(conf map[string]any) (history.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return history.NewJSONLStore(c.Path)
//	})
package factory

// Package config loads RouteDB configuration from YAML and ROUTEDB_*
// environment variables, validates it, writes it back out and watches
// it for changes.
//
// A minimal file:
//
//	default: memory
//	engines:
//	  - name: memory
//	    kind: memory
//	  - name: localStorage
//	    kind: git
//	    path: ./data
//	    adopt: true
//	log:
//	  level: debug
package config

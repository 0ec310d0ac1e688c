// Package main builds the C shared library used by the language bindings.
// Every call that returns a string returns JSON that the caller must
// release with routedb_free.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

//export routedb_open
func routedb_open(configPath *C.char) C.int {
	path := ""
	if configPath != nil {
		path = C.GoString(configPath)
	}

	handle, err := registry.open(path)
	if err != nil {
		return -1
	}
	return C.int(handle)
}

//export routedb_close
func routedb_close(handle C.int) C.int {
	if err := registry.close(int(handle)); err != nil {
		return -1
	}
	return 0
}

//export routedb_execute
func routedb_execute(handle C.int, query *C.char) *C.char {
	return C.CString(string(registry.execute(int(handle), C.GoString(query))))
}

//export routedb_set_default
func routedb_set_default(handle C.int, name *C.char) *C.char {
	return C.CString(string(registry.setDefault(int(handle), C.GoString(name))))
}

//export routedb_free
func routedb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}

//go:build llama

package manager

// Link directives for the in-process llama runtime. The rpath of $ORIGIN
// lets the loader find libllama.so next to the binary in ./bin, and the -L
// path lets the linker find it there at build time.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"

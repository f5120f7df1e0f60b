package managed

import (
	"sync"
	"testing"
	"unicode/utf16"
)

// Payload readers run alongside SetNative; go test -race checks the locking.
func TestObject_NativeConcurrentAccess(t *testing.T) {
	vm := newVM(t, Config{})
	env := vm.AttachThread("main")
	str := env.NewString("alpha")
	box := vm.Box(Int(1))

	payloads := []stringData{stringData(utf16.Encode([]rune("alpha"))), stringData(utf16.Encode([]rune("omega")))}
	boxes := []boxData{boxData(Int(1)), boxData(Int(2))}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			str.SetNative(payloads[i%2])
			box.SetNative(boxes[i%2])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if !str.IsString() {
				t.Error("string lost its payload")
				return
			}
			if s, _ := str.GoString(); s != "alpha" && s != "omega" {
				t.Errorf("GoString = %q", s)
				return
			}
			if c, _ := str.Chars(); len(c) != 5 {
				t.Errorf("Chars = %v", c)
				return
			}
			if s := str.String(); s != "alpha" && s != "omega" {
				t.Errorf("String = %q", s)
				return
			}
			if v, ok := box.Unbox(); !ok || (v.AsInt() != 1 && v.AsInt() != 2) {
				t.Errorf("Unbox = %v, %v", v, ok)
				return
			}
		}
	}()
	wg.Wait()
}

// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hostarch holds the guest-address type shared by the arch and
// tracedthread packages. It is not dereferenceable: an Addr only denotes
// a location in a traced process's virtual memory and is meaningless
// outside the context of that process.
package hostarch

import "fmt"

// PageSize is the base page size assumed for alignment on the
// architectures this module supports.
const PageSize = 1 << 12

// Addr is an address in a traced process's virtual address space.
type Addr uint64

// String implements fmt.Stringer.
func (a Addr) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// RoundDown returns a rounded down to the nearest page boundary.
func (a Addr) RoundDown() Addr {
	return a &^ (PageSize - 1)
}

// AddLength returns a+l and true if that sum does not overflow.
func (a Addr) AddLength(l uint64) (Addr, bool) {
	r := a + Addr(l)
	if r < a {
		return 0, false
	}
	return r, true
}

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

package hostarch

import (
	"math"
	"testing"
)

func TestRoundDown(t *testing.T) {
	for _, test := range []struct {
		addr Addr
		want Addr
	}{
		{0, 0},
		{1, 0},
		{PageSize - 1, 0},
		{PageSize, PageSize},
		{PageSize + 1, PageSize},
	} {
		if got := test.addr.RoundDown(); got != test.want {
			t.Errorf("Addr(%#x).RoundDown() = %#x, want %#x", test.addr, got, test.want)
		}
	}
}

func TestAddLength(t *testing.T) {
	if got, ok := Addr(10).AddLength(5); !ok || got != 15 {
		t.Errorf("AddLength(10, 5) = (%#x, %v), want (0xf, true)", got, ok)
	}
	if _, ok := Addr(math.MaxUint64).AddLength(1); ok {
		t.Errorf("AddLength overflow not detected")
	}
}

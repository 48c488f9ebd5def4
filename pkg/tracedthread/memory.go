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

//go:build linux

package tracedthread

import (
	"fmt"
	"io"
	"os"

	"github.com/shadowsim/tracedthread/pkg/hostarch"
)

// memoryWindow is the controller's view of a traced process's address
// space: a seekable byte stream backed by /proc/<pid>/mem. Re-opened on
// every exec, since the fd otherwise still refers to the pre-exec image.
type memoryWindow struct {
	file  *os.File
	dirty bool
}

func openMemoryWindow(pid int) (*memoryWindow, error) {
	f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open memory window for pid %d: %v", ErrFatalHost, pid, err)
	}
	return &memoryWindow{file: f}, nil
}

// reopen re-opens the memory window against the process's current image,
// for use after an exec stop.
func (m *memoryWindow) reopen(pid int) error {
	if m.file != nil {
		m.file.Close()
	}
	f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: reopen memory window for pid %d: %v", ErrFatalHost, pid, err)
	}
	m.file = f
	m.dirty = false
	return nil
}

// read copies exactly n bytes starting at addr out of the traced
// process. A short read or EOF is fatal: it means addr..addr+n doesn't
// name live, resident guest memory, which a cooperating guest should
// never cause.
func (m *memoryWindow) read(addr hostarch.Addr, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := m.file.Seek(int64(addr), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek to %s: %v", ErrFatalHost, addr, err)
	}
	if _, err := io.ReadFull(m.file, buf); err != nil {
		return nil, fmt.Errorf("%w: read %d bytes at %s: %v", ErrFatalHost, n, addr, err)
	}
	return buf, nil
}

// write copies all of data into the traced process starting at addr and
// marks the window dirty.
func (m *memoryWindow) write(addr hostarch.Addr, data []byte) error {
	if _, err := m.file.Seek(int64(addr), io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to %s: %v", ErrFatalHost, addr, err)
	}
	if _, err := m.file.Write(data); err != nil {
		return fmt.Errorf("%w: write %d bytes at %s: %v", ErrFatalHost, len(data), addr, err)
	}
	m.dirty = true
	return nil
}

// flush clears the dirty flag. Idempotent.
//
// os.File.Write on /proc/pid/mem is unbuffered: by the time write()
// returns, the bytes are already visible to the guest. There is nothing
// left to push out to the kernel, and no sync to ask for one — the
// procfs mem file has no fsync handler, so File.Sync on it fails with
// EINVAL.
func (m *memoryWindow) flush() error {
	m.dirty = false
	return nil
}

func (m *memoryWindow) close() error {
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}

// pendingWrite is a write staged by the syscall handler but not yet
// flushed to the guest.
type pendingWrite struct {
	addr hostarch.Addr
	buf  []byte
}

//go:build openpose && cgo

package main

import (
	_ "github.com/wippyai/openpose-go/native/cgolib"
)

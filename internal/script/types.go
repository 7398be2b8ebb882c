/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package script

// Script is a parsed gesture script: an ordered list of editor inputs that can
// be replayed headlessly against an editor.Controller.
//
//	# draw a kitchen
//	viewport 0 0 1
//	tool room_kitchen
//	down 10 10
//	move 60 30
//	up 110 60
//	key delete
type Script struct {
	Steps []Step
}

// Op is the kind of a script step.
type Op int

const (
	OpUnknown Op = iota
	OpViewport
	OpTool
	OpDown
	OpMove
	OpUp
	OpKey
	OpLock
	OpClear
)

func (o Op) String() string {
	switch o {
	case OpViewport:
		return "viewport"
	case OpTool:
		return "tool"
	case OpDown:
		return "down"
	case OpMove:
		return "move"
	case OpUp:
		return "up"
	case OpKey:
		return "key"
	case OpLock:
		return "lock"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Step is one input. Nums holds coordinates (x y, or pan-x pan-y zoom for
// viewport); Arg holds the word argument of tool, key and lock.
type Step struct {
	Op     Op
	Nums   []float64
	Arg    string
	LineNo int // 1-based line in the source
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string {
	return "line " + itoa(e.Line) + ": " + e.Message
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package script

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"floorplan/internal/plan"
)

var (
	reStep = regexp.MustCompile(`^([A-Za-z]+)\b\s*(.*)$`)
	reSep  = regexp.MustCompile(`[\s,]+`)
)

// arity is the number of numeric arguments per op; -1 means one word.
var arity = map[string]struct {
	op Op
	n  int
}{
	"viewport": {OpViewport, 3},
	"tool":     {OpTool, -1},
	"down":     {OpDown, 2},
	"move":     {OpMove, 2},
	"up":       {OpUp, 2},
	"key":      {OpKey, -1},
	"lock":     {OpLock, -1},
	"clear":    {OpClear, 0},
}

// Parse parses a gesture script. Blank lines and lines starting with "#" or
// ";" are ignored. Invalid lines are reported and skipped; the remaining
// steps are still returned.
func Parse(input string) (Script, []Error) {
	var (
		s    Script
		errs []Error
	)
	sc := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		trim := strings.TrimSpace(sc.Text())
		if trim == "" || strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, ";") {
			continue
		}
		m := reStep.FindStringSubmatch(trim)
		if m == nil {
			errs = append(errs, Error{Line: lineNo, Column: 1, Message: "expected a command"})
			continue
		}
		name := strings.ToLower(m[1])
		spec, ok := arity[name]
		if !ok {
			errs = append(errs, Error{Line: lineNo, Column: 1, Message: "unknown command " + strconv.Quote(m[1])})
			continue
		}
		var args []string
		if rest := strings.TrimSpace(m[2]); rest != "" {
			args = reSep.Split(rest, -1)
		}
		col := len(m[1]) + 2
		step := Step{Op: spec.op, LineNo: lineNo}
		switch {
		case spec.n < 0:
			if len(args) != 1 {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: name + " takes exactly one argument"})
				continue
			}
			step.Arg = strings.ToLower(args[0])
			if msg := checkWord(spec.op, step.Arg); msg != "" {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: msg})
				continue
			}
		default:
			if len(args) != spec.n {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: name + " takes " + itoa(spec.n) + " numbers"})
				continue
			}
			nums, bad := parseNums(args)
			if bad >= 0 {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: "invalid number " + strconv.Quote(args[bad])})
				continue
			}
			if spec.op == OpViewport && nums[2] <= 0 {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: "zoom must be positive"})
				continue
			}
			step.Nums = nums
		}
		s.Steps = append(s.Steps, step)
	}
	return s, errs
}

func parseNums(args []string) ([]float64, int) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, i
		}
		out[i] = v
	}
	return out, -1
}

func checkWord(op Op, w string) string {
	switch op {
	case OpKey:
		switch w {
		case "delete", "backspace", "escape":
			return ""
		}
		return "unknown key " + strconv.Quote(w)
	case OpLock:
		switch w {
		case "on", "off", "true", "false":
			return ""
		}
		return "lock expects on or off"
	case OpTool:
		if w == "none" {
			return ""
		}
		if _, err := plan.ParseKind(w); err != nil {
			return err.Error()
		}
	}
	return ""
}

func itoa(n int) string { return strconv.Itoa(n) }

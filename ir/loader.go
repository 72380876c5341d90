// (c) Copyright cfiverify's authors
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

package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of an IR document
type Format string

// Supported IR document encodings
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the document encoding from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported IR document extension: %q", filepath.Ext(path))
}

type moduleDoc struct {
	Name       string        `json:"name" yaml:"name"`
	Funcs      []uint64      `json:"funcs" yaml:"funcs"`
	PLT        Range         `json:"plt" yaml:"plt"`
	GuestTable uint64        `json:"guest_table" yaml:"guest_table"`
	TableSize  int64         `json:"table_size" yaml:"table_size"`
	Functions  []functionDoc `json:"functions" yaml:"functions"`
}

type functionDoc struct {
	Name   string     `json:"name" yaml:"name"`
	Addr   uint64     `json:"addr" yaml:"addr"`
	Blocks []blockDoc `json:"blocks" yaml:"blocks"`
}

type blockDoc struct {
	Addr   uint64     `json:"addr" yaml:"addr"`
	Succs  []uint64   `json:"succs" yaml:"succs"`
	Instrs []instrDoc `json:"instrs" yaml:"instrs"`
}

type instrDoc struct {
	Addr  uint64    `json:"addr" yaml:"addr"`
	Stmts []stmtDoc `json:"stmts" yaml:"stmts"`
}

type stmtDoc struct {
	Kind   string       `json:"kind" yaml:"kind"`
	Op     string       `json:"op,omitempty" yaml:"op,omitempty"`
	Cond   string       `json:"cond,omitempty" yaml:"cond,omitempty"`
	Target uint64       `json:"target,omitempty" yaml:"target,omitempty"`
	Size   uint64       `json:"size,omitempty" yaml:"size,omitempty"`
	Dst    *operandDoc  `json:"dst,omitempty" yaml:"dst,omitempty"`
	Src    *operandDoc  `json:"src,omitempty" yaml:"src,omitempty"`
	Src1   *operandDoc  `json:"src1,omitempty" yaml:"src1,omitempty"`
	Src2   *operandDoc  `json:"src2,omitempty" yaml:"src2,omitempty"`
	Srcs   []operandDoc `json:"srcs,omitempty" yaml:"srcs,omitempty"`
	Callee *operandDoc  `json:"callee,omitempty" yaml:"callee,omitempty"`
}

// operandDoc encodes exactly one of a register, an immediate, a RIP
// relative constant or a memory reference.
type operandDoc struct {
	Reg    *uint8       `json:"reg,omitempty" yaml:"reg,omitempty"`
	Imm    *int64       `json:"imm,omitempty" yaml:"imm,omitempty"`
	RIP    *uint64      `json:"rip,omitempty" yaml:"rip,omitempty"`
	Mem    []operandDoc `json:"mem,omitempty" yaml:"mem,omitempty"`
	Scaled bool         `json:"scaled,omitempty" yaml:"scaled,omitempty"`
	Signed bool         `json:"signed,omitempty" yaml:"signed,omitempty"`
	Size   ValSize      `json:"size,omitempty" yaml:"size,omitempty"`
}

// LoadModule reads an IR document from disk
func LoadModule(path string) (*Module, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	// #nosec
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	mod, err := Decode(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mod.Name == "" {
		mod.Name = filepath.Base(path)
	}
	return mod, nil
}

// Decode reads an IR document in the given encoding
func Decode(r io.Reader, format Format) (*Module, error) {
	var doc moduleDoc
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported IR document format: %q", format)
	}
	return doc.build()
}

func (d *moduleDoc) build() (*Module, error) {
	funcs := d.Funcs
	if len(funcs) == 0 {
		for _, f := range d.Functions {
			funcs = append(funcs, f.Addr)
		}
	}
	mod := &Module{
		Name:     d.Name,
		Metadata: NewMetadata(funcs, d.PLT, d.GuestTable, d.TableSize),
	}
	for _, fd := range d.Functions {
		fn, err := fd.build()
		if err != nil {
			return nil, fmt.Errorf("function %q at 0x%x: %w", fd.Name, fd.Addr, err)
		}
		mod.Functions = append(mod.Functions, fn)
	}
	return mod, nil
}

func (d *functionDoc) build() (*Function, error) {
	blocks := make([]*Block, 0, len(d.Blocks))
	for _, bd := range d.Blocks {
		block := &Block{Addr: bd.Addr, Succs: bd.Succs}
		for _, id := range bd.Instrs {
			instr := Instruction{Addr: id.Addr}
			for i := range id.Stmts {
				stmt, err := id.Stmts[i].build()
				if err != nil {
					return nil, fmt.Errorf("instruction 0x%x: %w", id.Addr, err)
				}
				instr.Stmts = append(instr.Stmts, stmt)
			}
			block.Instrs = append(block.Instrs, instr)
		}
		blocks = append(blocks, block)
	}
	return NewFunction(d.Name, d.Addr, blocks...), nil
}

func (d *stmtDoc) build() (Stmt, error) {
	switch strings.ToLower(d.Kind) {
	case "clear":
		dst, err := d.Dst.build("dst")
		if err != nil {
			return nil, err
		}
		srcs := make([]Value, 0, len(d.Srcs))
		for i := range d.Srcs {
			src, err := d.Srcs[i].build("srcs")
			if err != nil {
				return nil, err
			}
			srcs = append(srcs, src)
		}
		return Clear{Dst: dst, Srcs: srcs}, nil
	case "unop":
		dst, err := d.Dst.build("dst")
		if err != nil {
			return nil, err
		}
		src, err := d.Src.build("src")
		if err != nil {
			return nil, err
		}
		return Unop{Op: Unopcode(strings.ToLower(d.Op)), Dst: dst, Src: src}, nil
	case "binop":
		dst, err := d.Dst.build("dst")
		if err != nil {
			return nil, err
		}
		src1, err := d.Src1.build("src1")
		if err != nil {
			return nil, err
		}
		src2, err := d.Src2.build("src2")
		if err != nil {
			return nil, err
		}
		return Binop{Op: Binopcode(strings.ToLower(d.Op)), Dst: dst, Src1: src1, Src2: src2}, nil
	case "call":
		target, err := d.Callee.build("callee")
		if err != nil {
			return nil, err
		}
		return Call{Target: target}, nil
	case "branch":
		return Branch{Cond: Cond(strings.ToLower(d.Cond)), Target: d.Target}, nil
	case "ret":
		return Ret{}, nil
	case "undefined":
		return Undefined{}, nil
	case "probestack":
		return ProbeStack{Size: d.Size}, nil
	}
	return nil, fmt.Errorf("unknown statement kind %q", d.Kind)
}

func (d *operandDoc) size() (ValSize, error) {
	if d.Size == 0 {
		return Size64, nil
	}
	if !d.Size.Valid() {
		return 0, fmt.Errorf("invalid operand size %d", d.Size)
	}
	return d.Size, nil
}

func (d *operandDoc) build(field string) (Value, error) {
	if d == nil {
		return nil, fmt.Errorf("missing operand %q", field)
	}
	size, err := d.size()
	if err != nil {
		return nil, err
	}
	switch {
	case d.Reg != nil:
		return Reg{Num: *d.Reg, Size: size}, nil
	case d.Imm != nil:
		return Imm{Signed: d.Signed, Size: size, Val: *d.Imm}, nil
	case d.RIP != nil:
		return RIPConst{Target: *d.RIP}, nil
	case len(d.Mem) > 0:
		args, err := d.memArgs()
		if err != nil {
			return nil, fmt.Errorf("operand %q: %w", field, err)
		}
		return Mem{Size: size, Args: args}, nil
	}
	return nil, fmt.Errorf("operand %q has no register, immediate, rip or mem component", field)
}

func (d *operandDoc) memArgs() (MemArgs, error) {
	args := make([]MemArg, 0, len(d.Mem))
	for i := range d.Mem {
		a := &d.Mem[i]
		size, err := a.size()
		if err != nil {
			return nil, err
		}
		switch {
		case a.Reg != nil:
			args = append(args, MemReg{Num: *a.Reg, Size: size})
		case a.Imm != nil:
			args = append(args, MemImm{Signed: a.Signed, Size: size, Val: *a.Imm})
		default:
			return nil, errors.New("memory component must be a register or an immediate")
		}
	}
	switch len(args) {
	case 1:
		return Mem1Arg{X: args[0]}, nil
	case 2:
		return Mem2Args{X: args[0], Y: args[1]}, nil
	case 3:
		if d.Scaled {
			return MemScale{X: args[0], Y: args[1], Z: args[2]}, nil
		}
		return Mem3Args{X: args[0], Y: args[1], Z: args[2]}, nil
	}
	return nil, fmt.Errorf("memory reference with %d components", len(args))
}

// Package monitor holds the validated host metrics snapshot produced on every
// collection tick, plus the Prometheus instruments the collection loop updates.
package monitor

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CPU percent bounds accepted by Record.
const (
	MinCPUPercent = 0
	MaxCPUPercent = 100
)

var (
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("metrics validation failed")

	valid = validator.New()
)

// ValidationError reports a reading that violates a Record bound.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (got %v)", e.Reason, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Record is one host snapshot. The zero value is not valid; build records with
// NewRecord. Setters re-validate and leave the record untouched on error.
type Record struct {
	cpuPercent     float64
	usedMemory     uint64
	totalMemory    uint64
	processCount   uint32
	diskBytesRead  uint64
	diskBytesWrite uint64
}

// NewRecord builds a Record from six raw readings.
func NewRecord(cpuPercent float64, usedMemory, totalMemory uint64, processCount uint32, diskRead, diskWrite uint64) (Record, error) {
	var r Record
	if err := r.SetCPUPercent(cpuPercent); err != nil {
		return Record{}, err
	}
	r.SetUsedMemory(usedMemory)
	r.SetTotalMemory(totalMemory)
	if err := r.SetProcessCount(processCount); err != nil {
		return Record{}, err
	}
	r.SetDiskBytesRead(diskRead)
	r.SetDiskBytesWrite(diskWrite)
	return r, nil
}

func (r *Record) SetCPUPercent(v float64) error {
	// validator rejects NaN as well: every comparison against NaN is false
	if err := valid.Var(v, "gte=0,lte=100"); err != nil {
		return &ValidationError{Field: "cpu_percent", Value: v, Reason: "cpu_percent out of range"}
	}
	r.cpuPercent = v
	return nil
}

func (r *Record) SetProcessCount(v uint32) error {
	if err := valid.Var(v, "min=1"); err != nil {
		return &ValidationError{Field: "process_count", Value: v, Reason: "process_count cannot be zero"}
	}
	r.processCount = v
	return nil
}

// Memory and disk counters are only bounded by their width.

func (r *Record) SetUsedMemory(v uint64) { r.usedMemory = v }
func (r *Record) SetTotalMemory(v uint64) { r.totalMemory = v }
func (r *Record) SetDiskBytesRead(v uint64) { r.diskBytesRead = v }
func (r *Record) SetDiskBytesWrite(v uint64) { r.diskBytesWrite = v }

func (r Record) CPUPercent() float64 { return r.cpuPercent }
func (r Record) UsedMemory() uint64 { return r.usedMemory }
func (r Record) TotalMemory() uint64 { return r.totalMemory }
func (r Record) ProcessCount() uint32 { return r.processCount }
func (r Record) DiskBytesRead() uint64 { return r.diskBytesRead }
func (r Record) DiskBytesWrite() uint64 { return r.diskBytesWrite }

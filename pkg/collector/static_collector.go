package collector

// Readings 一组固定读数
type Readings struct {
	CPUPercent       float64
	UsedMemory       uint64
	TotalMemory      uint64
	ProcessCount     uint32
	DiskBytesRead    uint64
	DiskBytesWritten uint64
}

// StaticCollector 返回固定读数的提供者，用于调试与测试
type StaticCollector struct {
	Readings Readings
}

func NewStaticCollector(r Readings) *StaticCollector {
	return &StaticCollector{Readings: r}
}

func (s *StaticCollector) CPUPercent() (float64, error) { return s.Readings.CPUPercent, nil }
func (s *StaticCollector) UsedMemory() (uint64, error) { return s.Readings.UsedMemory, nil }
func (s *StaticCollector) TotalMemory() (uint64, error) { return s.Readings.TotalMemory, nil }
func (s *StaticCollector) ProcessCount() (uint32, error) { return s.Readings.ProcessCount, nil }
func (s *StaticCollector) DiskBytesRead() (uint64, error) { return s.Readings.DiskBytesRead, nil }
func (s *StaticCollector) DiskBytesWritten() (uint64, error) { return s.Readings.DiskBytesWritten, nil }

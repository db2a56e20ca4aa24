// gauge-monitor boots HAL with a single LC709203F on i2c0, prints every HAL
// topic it sees and reads the profile code once through reg_read.
package main

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/services/hal"
	"gaugecode-go/types"
)

const gaugeParams = `{"bus":"i2c0","name":"pack","poll_ms":1000,"temp_source":"thermistor","thermistor_b":3380}`

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix, " ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func printPayload(p any) {
	switch v := p.(type) {
	case types.GaugeValue:
		println("   rsoc:", v.RSOC, "ite:", v.ITEPermille, "mV:", v.CellMilliV, "deciC:", v.DeciC, v.Direction, v.PowerMode)
	case types.TemperatureValue:
		println("   deciC:", v.DeciC)
	case types.CapabilityStatus:
		println("   link:", string(v.Link), v.Error)
	case types.GaugeAlarmEvent:
		println("   alarm rsoc:", v.RSOC, "mV:", v.CellMilliV, "threshold:", v.Threshold)
	case types.RegValue:
		println("   reg", v.Reg, "=", v.Value, v.Error)
	case types.GaugeInfo:
		println("   ic:", v.ICVersion, "param:", v.ParamCode, "profile:", v.Profile, v.TempSource)
	}
}

func main() {
	time.Sleep(3 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)
	halConn := b.NewConnection("hal")
	uiConn := b.NewConnection("ui")

	mon := uiConn.Subscribe(bus.T("hal", bus.MultiWild))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
			printPayload(m.Payload)
		}
	}()

	println("[main] starting hal.Run …")
	go hal.Run(ctx, halConn)

	cfg := types.HALConfig{
		Devices: []types.HALDevice{{
			ID:     "gauge0",
			Type:   "lc709203f",
			Params: json.RawMessage(gaugeParams),
		}},
	}
	uiConn.Publish(uiConn.NewMessage(bus.T("config", "hal"), cfg, true))
	time.Sleep(250 * time.Millisecond)

	ctrl := func(verb string, payload any) {
		t := bus.T("hal", "cap", "power", string(types.KindBattery), "pack", "control", verb)
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		reply, err := uiConn.RequestWait(rctx, uiConn.NewMessage(t, payload, false))
		if err != nil {
			println("[main]", verb, "error:", err.Error())
			return
		}
		if r, ok := reply.Payload.(types.ErrorReply); ok {
			println("[main]", verb, "rejected:", r.Error)
		}
	}
	ctrl("reg_read", types.RegRead{Reg: "NUMBER_OF_THE_PARAMETER"})

	for {
		printMem()
		time.Sleep(5 * time.Second)
	}
}

// printMem prints a compact snapshot of runtime memory stats without fmt.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}

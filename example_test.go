// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package winarr_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/winarr"
)

// ExampleNewArray demonstrates a sliding window of sequence numbers.
func ExampleNewArray() {
	a := winarr.NewArray[string](4)

	for _, s := range []string{"syn", "data", "data", "fin"} {
		a.Add(s)
	}

	// Acknowledge the first two
	a.Remove(0)
	a.Remove(1)

	fmt.Println(a.FirstIndex(), a.LastIndex(), a.WindowSize())
	for index, v := range a.All() {
		fmt.Println(index, v)
	}

	// Output:
	// 2 3 2
	// 2 data
	// 3 fin
}

// ExampleArray_Set demonstrates writing ahead of the window and the
// rule that removed indices stay removed.
func ExampleArray_Set() {
	a := winarr.NewArray[int](4)

	a.Set(2, 20)
	_, ok := a.Get(1)
	fmt.Println(a.LastIndex(), ok)

	a.Remove(2)
	_, _, err := a.Set(2, 21)
	fmt.Println(errors.Is(err, winarr.ErrOutOfBounds))

	// Output:
	// 2 false
	// true
}

// ExampleArray_GetWait demonstrates waiting for a value written later.
func ExampleArray_GetWait() {
	a := winarr.NewArray[string](8)

	go func() {
		time.Sleep(10 * time.Millisecond)
		a.Set(3, "ready")
	}()

	v, ok, err := a.GetWait(context.Background(), 3, time.Second)
	fmt.Println(v, ok, err)

	// A timeout is not an error
	_, ok, err = a.GetWait(context.Background(), 4, 10*time.Millisecond)
	fmt.Println(ok, err)

	// Output:
	// ready true <nil>
	// false <nil>
}

// ExampleArray_SafeRemoveWait demonstrates an in-order consumer.
func ExampleArray_SafeRemoveWait() {
	a := winarr.NewArray[int](4)

	go func() {
		for i := 1; i <= 3; i++ {
			a.Add(i * 100)
		}
	}()

	for index := int64(0); index < 3; index++ {
		v, ok, err := a.SafeRemoveWait(context.Background(), index, time.Second)
		if err != nil || !ok {
			fmt.Println("timeout")
			return
		}
		fmt.Println(v)
	}

	// Output:
	// 100
	// 200
	// 300
}

// ExampleNewOptimistic demonstrates an array with lock-free reads.
func ExampleNewOptimistic() {
	o := winarr.NewOptimistic[string](4)

	o.Add("a")
	o.Add("b")
	o.Add("c")
	o.Remove(0)

	results := make([]string, 3)
	found := make([]bool, 3)
	n := o.GetAll([]int64{0, 1, 2}, results, found)
	fmt.Println(n, results, found)

	// Output:
	// 2 [ b c] [false true true]
}

// Packet carries its own sequence number.
type Packet struct {
	Seq     int64
	Payload string
}

func (p *Packet) SetVirtualIndex(index int64) { p.Seq = index }
func (p *Packet) VirtualIndex() int64         { return p.Seq }

// ExampleSelfIndexer demonstrates values that carry their own index.
func ExampleSelfIndexer() {
	a := winarr.Build[*Packet](winarr.New(16), winarr.SelfIndexer[*Packet]())

	p := &Packet{Seq: winarr.UnknownIndex, Payload: "hello"}
	a.Add(p)
	a.Add(&Packet{Seq: winarr.UnknownIndex, Payload: "world"})

	got, _ := a.Get(1)
	fmt.Println(p.Seq, got.Seq, got.Payload)

	// Output:
	// 0 1 world
}

// ExampleBuild demonstrates a bounded array.
func ExampleBuild() {
	a := winarr.Build[int](winarr.New(2).MaxCapacity(4), nil)

	var err error
	for i := range 5 {
		if _, err = a.Add(i); err != nil {
			break
		}
	}
	fmt.Println(winarr.IsOutOfBounds(err), a.Capacity())

	// Output:
	// true 4
}

// ExampleNewIndexedQueue demonstrates a multi-producer multi-consumer queue.
func ExampleNewIndexedQueue() {
	q := winarr.NewIndexedQueue[int](8)

	var wg sync.WaitGroup
	for p := range 3 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range 2 {
				v := id*10 + i
				q.Enqueue(&v)
			}
		}(p)
	}
	wg.Wait()

	sum := 0
	backoff := iox.Backoff{}
	for range 6 {
		for {
			v, err := q.Dequeue()
			if err == nil {
				sum += v
				backoff.Reset()
				break
			}
			backoff.Wait()
		}
	}
	fmt.Println(sum)

	// Output:
	// 63
}

package cabac

// Context is the adaptive probability model of one context index.
type Context struct {
	State uint8 // probability state index, 0..63
	MPS   uint8 // most probable symbol, 0 or 1
}

// Init sets the context from an 8-bit initialization value and the slice
// QP. The QP is clipped to [0, 51] before use.
func (c *Context) Init(initValue uint8, sliceQP int) {
	m := int(initValue>>4)*5 - 45
	n := int(initValue&15)<<3 - 16
	pre := 2*(((m*clip3(0, 51, sliceQP))>>4)+n) - 127
	pre ^= pre >> 31
	if pre > 124 {
		pre = 124 + pre&1
	}
	if pre <= 63 {
		c.State = uint8(63 - pre)
		c.MPS = 0
	} else {
		c.State = uint8(pre - 64)
		c.MPS = 1
	}
}

// update moves the context after decoding bin.
func (c *Context) update(bin int) {
	if bin == int(c.MPS) {
		c.State = transIdxMPS[c.State]
		return
	}
	if c.State == 0 {
		c.MPS ^= 1
	}
	c.State = transIdxLPS[c.State]
}

func clip3(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

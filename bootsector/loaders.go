package bootsector

// msxdos1Loader and msxdos2Loader are the canned boot programs embedded in
// synthesized images, selected by Synthesize per spec.md §4.1. Per spec.md
// §1 Non-goals ("emulating exact MSX-DOS boot-loader behavior beyond
// embedding canned boot code"), these are fixed, recognizable machine-code
// stubs rather than a faithful reproduction of either DOS generation's real
// loader -- each starts with a short, real Z80 sequence that halts the CPU
// if the BIOS ever jumps into it, and is zero-padded out to bootProgramSize.

func cannedLoader(signature byte) [bootProgramSize]byte {
	var program [bootProgramSize]byte
	// DI ; HALT ; <signature> ; NOP*
	program[0] = 0xF3
	program[1] = 0x76
	program[2] = signature
	return program
}

var msxdos1Loader = cannedLoader(0x01)
var msxdos2Loader = cannedLoader(0x02)

/*
Package pandasim simulates PandABlocks FPGA hardware in software.

Per-block behavioral models are advanced in discrete time steps by a
simulation clock, and their register state is exposed through a register
map whose addressing matches the real hardware's (block type, instance,
register) scheme. Capture words produced while ticking are queued in a
shared capture buffer for retrieval over the control-port protocol
served by the server package.

Block types are pluggable: a concrete model implements the Model
interface and registers a BlockSpec describing its register layout. The
blocks package provides the built-in block library.
*/
package pandasim

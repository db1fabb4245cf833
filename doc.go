/*
Package rack allows to build chains of audio units and drive them from a
control schedule.

Concept

This package offers a small perspective on a live synth rig. The signal
path has up to three kinds of stages:

    Source - the instrument which generates signal on note events;
    Processor - the unit which manipulates the signal;
    Mixer - the terminal node which sums the signal into output.

It implies the following constraints:

    Chain is never empty and always ends with a Mixer;
    The head of the chain is the only unit addressed by note events;
    The shape of the chain is fixed once it's built.

Units

Each stage is implemented by a Unit. Units expose named parameters with
declared ranges. Parameter values are stored in atomic slots, so they can
be changed from the control schedule while the render schedule reads them.
Instruments additionally accept note events, which are handed over to the
render schedule through a bounded single-producer single-consumer queue.

Building

Chain is built with a fluent builder:

    c, err := rack.NewBuilder(rack.WithBufferSize(512)).
        Link(noise).
        To(lowpass).
        To(room).
        ToMixer()

ToMixer binds all units, pre-allocates buffers and returns an immutable
chain.

Managing

Manager owns registered chains, their display identity, focus and presets:

    m, err := rack.NewManager(rack.WithStore(store))
    err = m.Add(c, "tal-one", color.RGBA{B: 255, A: 255})
    err = m.LoadPresets(c)

Manager also implements Renderer: it fans every registered chain into its
master mixer.
*/
package rack

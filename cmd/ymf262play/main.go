package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	wavPath := flag.String("wav", "", "render to a WAV file instead of playing")
	loops := flag.Int("loops", 2, "number of times the looped section plays")
	gain := flag.Float64("gain", 1.0, "output gain applied before clamping")
	quiet := flag.Bool("quiet", false, "suppress song information")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ymf262play [flags] file.vgm")
		flag.PrintDefaults()
		os.Exit(2)
	}

	song, err := loadVGM(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	r := newRenderer(song, *gain, *loops)
	if !*quiet {
		fmt.Printf("VGM %s: %d YMF262 writes, clock %d Hz, %d Hz output, %.1fs\n",
			song.versionString(), len(song.Writes), song.ClockHz, r.rate, r.duration())
	}

	if *wavPath != "" {
		if err := writeWAV(r, *wavPath); err != nil {
			log.Fatal(err)
		}
		if !*quiet {
			fmt.Printf("wrote %s\n", *wavPath)
		}
		return
	}

	if err := play(r); err != nil {
		log.Fatal(err)
	}
}

// play renders the song in real time through the audio device.
func play(r *renderer) error {
	player, err := newAudioPlayer(r.rate)
	if err != nil {
		return err
	}
	defer player.close()

	samples := make([]int16, 2*renderFrames)
	for {
		n := r.next(samples)
		if n == 0 {
			break
		}
		player.queue(samples[:2*n])
	}
	player.drain()
	return nil
}

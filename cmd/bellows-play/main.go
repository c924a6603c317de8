package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bellows-audio/bellows"
	"github.com/bellows-audio/bellows/cmd"
	"github.com/bellows-audio/bellows/engine"
	"github.com/bellows-audio/bellows/fetch"
	"github.com/bellows-audio/bellows/keyboard"
	"github.com/bellows-audio/bellows/oto"
	"github.com/bellows-audio/bellows/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	bankFlag := flag.String("b", "", "Bank to play. By default, the first bank of the manifest.")
	notesFlag := flag.String("n", "", "Comma separated sample ids to play in sequence. By default, all samples of the bank.")
	gap := flag.Duration("g", 500*time.Millisecond, "Time each note is held before it is released.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	rawOut := flag.Bool("r", false, "Render the notes offline and output them as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Render the notes offline and output them as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	midiInput := flag.String("midi-input", "", "Play the bank from the MIDI input whose name starts with the given prefix, until interrupted. Use \"*\" for the first input.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	p := &player{
		manifestPath: flag.Arg(0),
		bankID:       *bankFlag,
		gap:          *gap,
		directory:    *directory,
		rawOut:       *rawOut,
		wavOut:       *wavOut,
		pcm:          *pcm,
		logger:       log.New(os.Stderr, "bellows-play: ", 0),
	}
	if *notesFlag != "" {
		for _, n := range strings.Split(*notesFlag, ",") {
			p.notes = append(p.notes, strings.TrimSpace(n))
		}
	}
	if err := p.run(*midiInput); err != nil {
		fmt.Fprintf(os.Stderr, "bellows-play: %v\n", err)
		os.Exit(1)
	}
}

type player struct {
	manifestPath string
	bankID       string
	notes        []string
	gap          time.Duration
	directory    string
	rawOut       bool
	wavOut       bool
	pcm          bool
	logger       *log.Logger
}

func (p *player) run(midiInput string) error {
	data, err := os.ReadFile(p.manifestPath)
	if err != nil {
		return fmt.Errorf("could not read file %v: %w", p.manifestPath, err)
	}
	manifest, err := bellows.ParseManifest(data)
	if err != nil {
		return err
	}
	bank, err := p.bank(manifest)
	if err != nil {
		return err
	}
	fetcher, err := fetch.New(p.assetRoot(manifest))
	if err != nil {
		return err
	}
	offline := p.rawOut || p.wavOut
	if offline && midiInput != "" {
		return fmt.Errorf("MIDI input cannot be rendered offline")
	}
	var audioContext bellows.AudioContext
	if offline {
		audioContext = bellows.NewOfflineContext(bellows.SampleRate)
	} else {
		audioContext, err = oto.NewContext(oto.Options{})
		if err != nil {
			return fmt.Errorf("could not acquire oto AudioContext: %w", err)
		}
	}
	e := engine.New(audioContext, engine.Options{Fetcher: fetcher, Logger: p.logger})
	defer e.Close()
	e.Bank(bank.ID, bank.Name)
	if err := p.load(e, manifest, bank); err != nil {
		return err
	}
	switch {
	case midiInput != "":
		return p.playMIDI(e, bank, midiInput)
	case offline:
		return p.render(e, audioContext.(*bellows.OfflineContext), bank)
	default:
		return p.playLive(e, bank)
	}
}

func (p *player) bank(m *bellows.Manifest) (bellows.BankSpec, error) {
	if p.bankID == "" {
		if len(m.Banks) == 0 {
			return bellows.BankSpec{}, fmt.Errorf("manifest %v has no banks", p.manifestPath)
		}
		return m.Banks[0], nil
	}
	b, ok := m.Bank(p.bankID)
	if !ok {
		return bellows.BankSpec{}, fmt.Errorf("manifest %v has no bank %q", p.manifestPath, p.bankID)
	}
	return b, nil
}

// assetRoot resolves a relative asset root against the directory of the
// manifest.
func (p *player) assetRoot(m *bellows.Manifest) string {
	root := m.AssetRoot
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") || filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(filepath.Dir(p.manifestPath), root)
}

func (p *player) load(e *engine.Engine, m *bellows.Manifest, bank bellows.BankSpec) error {
	sources := make([]engine.SampleSource, 0, len(bank.Samples))
	for _, s := range bank.Samples {
		src, err := m.SourceFor(bank, s)
		if err != nil {
			return err
		}
		sources = append(sources, engine.SampleSource{SampleID: s, Source: src})
	}
	done := 0
	report := e.LoadBatch(context.Background(), bank.ID, sources, func(sampleID string, err error) {
		done++
		if err == nil {
			p.logger.Printf("loaded %v (%d/%d)", sampleID, done, len(sources))
		}
	})
	if report.Loaded == 0 && len(sources) > 0 {
		return fmt.Errorf("none of the %d samples of bank %v could be loaded", len(sources), bank.ID)
	}
	if report.Failed > 0 {
		p.logger.Printf("%d of %d samples failed to load", report.Failed, len(sources))
	}
	return nil
}

func (p *player) notesOf(bank bellows.BankSpec) []string {
	if len(p.notes) > 0 {
		return p.notes
	}
	return bank.Samples
}

func (p *player) playLive(e *engine.Engine, bank bellows.BankSpec) error {
	if err := e.Activate(); err != nil {
		return fmt.Errorf("could not activate audio: %w", err)
	}
	for _, n := range p.notesOf(bank) {
		v := e.Trigger(n, bank.ID, 1, 0, false)
		if v == nil {
			p.logger.Printf("sample %v is not loaded, skipping", n)
			continue
		}
		time.Sleep(p.gap)
		v.Release()
	}
	time.Sleep(engine.DefaultFade * 2)
	return nil
}

func (p *player) playMIDI(e *engine.Engine, bank bellows.BankSpec, prefix string) error {
	if prefix == "*" {
		prefix = ""
	}
	if err := e.Activate(); err != nil {
		return fmt.Errorf("could not activate audio: %w", err)
	}
	k := keyboard.New(e, bank)
	in, err := cmd.OpenMIDIInput(prefix, k.HandleMessage)
	if err != nil {
		return err
	}
	p.logger.Printf("playing bank %v from %v, press Ctrl+C to stop", bank.ID, in)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	err = in.Close()
	k.ReleaseAll()
	return err
}

func (p *player) render(e *engine.Engine, ctx *bellows.OfflineContext, bank bellows.BankSpec) error {
	gapFrames := int(p.gap.Seconds() * bellows.SampleRate)
	var buffer bellows.AudioBuffer
	for _, n := range p.notesOf(bank) {
		v := e.Trigger(n, bank.ID, 1, 0, false)
		if v == nil {
			p.logger.Printf("sample %v is not loaded, skipping", n)
			continue
		}
		chunk, err := ctx.Render(gapFrames)
		if err != nil {
			return fmt.Errorf("rendering %v failed: %w", n, err)
		}
		buffer = append(buffer, chunk...)
		v.Release()
	}
	tail, err := ctx.Render(int(2 * engine.DefaultFade.Seconds() * bellows.SampleRate))
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	buffer = append(buffer, tail...)
	if p.rawOut {
		raw, err := buffer.Raw(p.pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %w", err)
		}
		if err := p.output(bank, ".raw", raw); err != nil {
			return fmt.Errorf("error outputting .raw file: %w", err)
		}
	}
	if p.wavOut {
		wav, err := buffer.Wav(bellows.SampleRate, p.pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %w", err)
		}
		if err := p.output(bank, ".wav", wav); err != nil {
			return fmt.Errorf("error outputting .wav file: %w", err)
		}
	}
	return nil
}

func (p *player) output(bank bellows.BankSpec, extension string, contents []byte) error {
	dir := p.directory
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
		}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %w", dir, err)
	}
	_, name := filepath.Split(p.manifestPath)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + "-" + bank.ID + extension
	f := filepath.Join(dir, name)
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", f, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Bellows command line utility for playing the banks of a sound set manifest.\nUsage: %s [flags] manifest.yml\n", os.Args[0])
	flag.PrintDefaults()
}

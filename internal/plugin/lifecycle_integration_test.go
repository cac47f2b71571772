// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package plugin_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/mfkl/vlclr/internal/control"
	"github.com/mfkl/vlclr/internal/events"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/host/memhost"
	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/internal/loader/luamod"
	"github.com/mfkl/vlclr/internal/plugin"
	"github.com/mfkl/vlclr/internal/varproxy"
	"github.com/mfkl/vlclr/pkg/errutil"
)

const counterScript = `
local sub
local changes = 0
function vlclr_plugin_open(intf)
	vlc.var_create(intf, "media_changes", "integer")
	sub = vlc.subscribe(intf, {
		on_media = function(media)
			changes = changes + 1
			vlc.var_set_integer(intf, "media_changes", changes)
		end,
	})
	return 0
end
function vlclr_plugin_close(intf)
	vlc.unsubscribe(sub)
end
`

const darkenScript = `
function vlclr_filter_open(filter, width, height, chroma) return 0 end
function vlclr_filter_close(filter) end
function vlclr_filter_frame(filter, frame)
	for off = 0, #frame - 1 do
		frame:set(off, math.floor(frame:get(off) / 2))
	end
end
`

func writeModuleDir(root, name, descriptor, libName, script string) {
	dir := filepath.Join(root, name)
	Expect(os.MkdirAll(dir, 0o750)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(dir, plugin.DescriptorFile), []byte(descriptor), 0o600)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(dir, libName), []byte(script), 0o600)).To(Succeed())
}

var _ = Describe("Module lifecycle", func() {
	var (
		root     string
		catalog  *plugin.Catalog
		h        *memhost.Host
		player   *memhost.Player
		playlist *memhost.Playlist
		proxy    *varproxy.Proxy
		surface  *control.Surface
		bridge   *events.Bridge
		svc      *plugin.ScriptServices
		intf     host.ObjectHandle
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		writeModuleDir(root, "counter", `
name: counter
capability: interface
score: 10
library: counter.lua
shortcuts: ["count*"]
`, "counter.lua", counterScript)
		writeModuleDir(root, "darken", `
name: darken
capability: video filter
score: 3
library: darken.lua
`, "darken.lua", darkenScript)

		catalog = plugin.NewCatalog(root)
		found, err := catalog.Discover(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(HaveLen(2))

		h = memhost.New()
		player = memhost.NewPlayer()
		playlist = memhost.NewPlaylist(player)
		playlist.Append(0x10, 0x20, 0x30)
		proxy = varproxy.New(h)
		surface = control.New()
		bridge = events.New()
		svc = plugin.NewScriptServices(proxy, surface, bridge)
		intf = h.NewObject(0, "interface")
		svc.Attach(intf, memhost.NewInterface(playlist))
	})

	newLoader := func(d *plugin.Discovered) *loader.Loader {
		return loader.New(d.LoaderConfig(), loader.WithOpener(luamod.NewOpener(luamod.WithServices(svc))))
	}

	Describe("interface module", func() {
		It("forwards player events until close and releases every listener", func() {
			d, ok := catalog.Lookup(plugin.CapabilityInterface, "counting")
			Expect(ok).To(BeTrue())

			p := plugin.NewInterfacePlugin(newLoader(d), plugin.WithTeardown(svc.Close))
			Expect(p.Open(intf)).To(Succeed())
			Expect(player.Listeners()).To(Equal(1))
			Expect(bridge.Active()).To(Equal(1))

			Expect(surface.Start(playlist)).To(Succeed())
			Expect(surface.Next(playlist)).To(Succeed())
			Expect(surface.Next(playlist)).To(Succeed())

			changes, err := proxy.GetInteger(intf, "media_changes")
			Expect(err).NotTo(HaveOccurred())
			Expect(changes).To(BeZero(), "handlers wait for the pump")

			Expect(p.Pump()).To(Equal(3))
			changes, err = proxy.GetInteger(intf, "media_changes")
			Expect(err).NotTo(HaveOccurred())
			Expect(changes).To(Equal(int64(3)))

			Expect(p.Close(intf)).To(Succeed())
			Expect(player.Listeners()).To(BeZero())
			Expect(bridge.Active()).To(BeZero())
			Expect(player.Violations()).To(BeZero())

			// Events after close reach nobody.
			Expect(surface.Prev(playlist)).To(Succeed())
			Expect(p.Pump()).To(BeZero())
			changes, err = proxy.GetInteger(intf, "media_changes")
			Expect(err).NotTo(HaveOccurred())
			Expect(changes).To(Equal(int64(3)))
		})

		It("can be reopened after close", func() {
			d, ok := catalog.Lookup(plugin.CapabilityInterface, "")
			Expect(ok).To(BeTrue())
			l := newLoader(d)
			p := plugin.NewInterfacePlugin(l, plugin.WithTeardown(svc.Close))

			for range 2 {
				Expect(p.Open(intf)).To(Succeed())
				Expect(l.Module()).NotTo(BeNil())
				Expect(p.Close(intf)).To(Succeed())
				Expect(l.Module()).To(BeNil())
			}
			Expect(player.Listeners()).To(BeZero())
		})

		It("rejects a filter module", func() {
			d, ok := catalog.Lookup(plugin.CapabilityVideoFilter, "darken")
			Expect(ok).To(BeTrue())

			cfg := d.LoaderConfig()
			cfg.Variant = loader.VariantInterface
			l := loader.New(cfg, loader.WithOpener(luamod.NewOpener()))
			err := plugin.NewInterfacePlugin(l).Open(intf)
			Expect(err).To(HaveOccurred())
			Expect(errutil.HasCode(err, errutil.CodeLoadFailure)).To(BeTrue())
			Expect(l.Module()).To(BeNil())
		})
	})

	Describe("video filter module", func() {
		It("modifies frames in place and passes them through after close", func() {
			d, ok := catalog.Lookup(plugin.CapabilityVideoFilter, "")
			Expect(ok).To(BeTrue())

			vf := plugin.NewVideoFilterPlugin(newLoader(d), h)
			format := host.VideoFormat{Chroma: host.ChromaRGBA, Width: 2, Height: 2}
			f, err := vf.Open(h.NewObject(0, "video filter"), format)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Initialized()).To(BeTrue())

			pixels := []byte{
				200, 100, 50, 255, 2, 4, 6, 8,
				10, 20, 30, 40, 0, 1, 2, 3,
			}
			pic := &host.Picture{Planes: []host.Plane{{
				Pixels: pixels, Pitch: 8, Lines: 2, VisiblePitch: 8, VisibleLines: 2,
			}}}
			Expect(f.Process(pic)).To(BeIdenticalTo(pic))
			Expect(pixels[:8]).To(Equal([]byte{100, 50, 25, 127, 1, 2, 3, 4}))

			vf.CloseFilter(f)
			before := append([]byte(nil), pixels...)
			f.Process(pic)
			Expect(pixels).To(Equal(before))

			Expect(vf.Shutdown()).To(Succeed())
			Expect(vf.Filters()).To(BeZero())
		})
	})
})
